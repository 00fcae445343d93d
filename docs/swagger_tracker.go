package docs

// @title           Activity Tracker API
// @version         1.0
// @description     Tracker service manages activity sessions (run, walk, ride, hike): start, pause, resume, end, live metrics and GPS sample ingestion over HTTP or WebSocket. Completed session summaries are stored and published for downstream consumers.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
