// Package docs provides generated OpenAPI documentation.
//
// Cedesk API
//
//	@title			Cedesk API
//	@version		1.0
//	@description	Continuing education requirement extraction API for managing extractions, sources, and call history.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/cedesk/cedesk
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/cedesk/serve.go -o ./swagger --parseDependency --parseInternal
