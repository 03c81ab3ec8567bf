// The main package for the harvester executable.
package main

import "github.com/avdeenkov/catalog-harvester/cmd"

func main() {
	cmd.Execute()
}
