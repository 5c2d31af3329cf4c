// Command cmdq is the CLI surface of the job queue: enqueue shell
// commands, run workers, and inspect state.
package main

func main() {
	Execute()
}
