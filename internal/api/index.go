package api

import "strings"

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>SnapshotFilter</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            max-width: 900px;
            margin: 40px auto;
            padding: 20px;
            background: #f5f5f5;
        }
        .container {
            background: white;
            padding: 30px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        img { max-width: 100%; background: #000; }
        button {
            padding: 10px 18px;
            border: none;
            border-radius: 4px;
            background: #1976d2;
            color: white;
            cursor: pointer;
        }
        pre { background: #f5f5f5; padding: 10px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>SnapshotFilter</h1>
        {{preview}}
        <p><button onclick="trigger()">Take snapshot</button></p>
        <pre id="events"></pre>
        <h3>API Endpoints:</h3>
        <ul>
            <li><a href="/api/health">/api/health</a> - Server health check</li>
            <li><a href="/api/snapshot">/api/snapshot</a> - Capture settings</li>
            <li><a href="/api/format">/api/format</a> - Negotiated stream format</li>
            <li><a href="/api/stats">/api/stats</a> - Frame and capture counters</li>
        </ul>
    </div>
    <script>
        function trigger() {
            fetch('/api/trigger', { method: 'POST' }).catch(console.error);
        }
        const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/api/events');
        ws.onmessage = (msg) => {
            const ev = JSON.parse(msg.data);
            const line = ev.error ? 'failed: ' + ev.error : 'wrote ' + ev.location;
            document.getElementById('events').textContent =
                '#' + ev.sequence + ' frame ' + ev.frame_index + ' ' + line + '\n' +
                document.getElementById('events').textContent;
        };
    </script>
</body>
</html>`

func indexHTML(preview bool) string {
	img := ""
	if preview {
		img = `<img src="/stream" alt="Live preview">`
	}
	return strings.Replace(indexTemplate, "{{preview}}", img, 1)
}
