package main

import "github.com/harborchat/harborchat/app"

func main() {
	app.New().Run()
}
