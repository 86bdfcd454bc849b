// Command wactl validates, exports and generates the water accounting input
// files outside the running dashboard.
package main

func main() {
	Execute()
}
