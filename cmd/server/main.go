package main

import "siraqemir/internal/app"

// @title                      siraqemir tasks API
// @version                    1.0
// @description                Owner-scoped task store with a realtime change feed.
// @BasePath                   /
// @securityDefinitions.apikey ApiKeyAuth
// @in                         header
// @name                       apikey
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	app.Run()
}
