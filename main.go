/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/f1plots/f1dash-service-manager-go/cmd"

func main() {
	cmd.Execute()
}
