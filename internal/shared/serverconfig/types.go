package serverconfig

type Config struct {
	MySQL        MySQLConfig        `yaml:"mysql" mapstructure:"mysql"`
	MongoDB      MongoDBConfig      `yaml:"mongodb" mapstructure:"mongodb"`
	BattleServer BattleServerConfig `yaml:"battleserver" mapstructure:"battleserver"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Battle       BattleConfig       `yaml:"battle" mapstructure:"battle"`
	JWTSecret    string             `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

type MySQLConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	DBName   string `yaml:"dbname" mapstructure:"dbname"`
	Charset  string `yaml:"charset" mapstructure:"charset"`
	MaxIdle  int    `yaml:"max_idle" mapstructure:"max_idle"`
	MaxConn  int    `yaml:"max_conn" mapstructure:"max_conn"`
}

type MongoDBConfig struct {
	URI             string `yaml:"uri" mapstructure:"uri"`
	Database        string `yaml:"database" mapstructure:"database"`
	ConnectTimeoutS int    `yaml:"connect_timeout_s" mapstructure:"connect_timeout_s"`
}

type BattleServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

type LogConfig struct {
	FileDir    string `yaml:"file_dir" mapstructure:"file_dir"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"` // days
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
	Level      string `yaml:"level" mapstructure:"level"` // debug/info/warn/error...
	Dev        bool   `yaml:"dev" mapstructure:"dev"`
}

// BattleConfig 是战斗引擎的数值开关（未配置时取程序内默认值）。
type BattleConfig struct {
	SpoilsPool          int64 `yaml:"spoils_pool" mapstructure:"spoils_pool"`
	InjuryMinutes       int   `yaml:"injury_minutes" mapstructure:"injury_minutes"`
	DefaultPledgeMinute int   `yaml:"default_pledge_minute" mapstructure:"default_pledge_minute"`
}
