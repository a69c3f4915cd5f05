// Command taskboard is a kanban task board for the terminal.
package main

import "github.com/mesh-intelligence/taskboard/internal/cli"

func main() {
	cli.Execute()
}
