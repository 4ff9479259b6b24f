package main

import "github.com/bryanchriswhite/SnapshotFilter/cmd/snapshotfilter/commands"

func main() {
	commands.Execute()
}
