// Command wedplanctl inspects and edits wedding budget ledgers from the
// terminal.
package main

func main() {
	Execute()
}
