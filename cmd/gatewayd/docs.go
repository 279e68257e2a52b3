package main

// General API documentation for swaggo. Run `make swagger-gen` to regenerate
// the docs package.
//
// @title           gatewayd API
// @version         1.0
// @description     HTTP gateway for a single GPU-bound model inference backend.
//
// @contact.name   gatewayd maintainers
// @contact.url    https://github.com/your-org/gatewayd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
//
// @securityDefinitions.apikey ApiKeyAuth
// @in                         header
// @name                       Authorization
// @description                API key, sent as "Bearer sk-..." or bare.
