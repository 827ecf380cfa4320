package config

// Supported gorm engines.
const (
	GormEngineMySQL    = "mysql"
	GormEnginePostgres = "postgres"
	GormEngineSQLite   = "sqlite"
)

// DB holds the database configuration settings.
type DB struct {
	Extras     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string // database name, the file path for sqlite
	GormEngine string // mysql, postgres or sqlite
	Debug      bool   // log every sql statement
}
