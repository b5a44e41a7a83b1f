package models

// SignalConnection describes how to reach the store shared by the bot and the worker
type SignalConnection struct {
	Type int
	// Path is the directory for the local provider or the database file for sqlite
	Path string
	// Host is host:port for redis
	Host     string
	Prefix   string
	Username string
	Password string
	UseSsl   bool
	// Bucket, Endpoint and Region are only used for S3. Username and Password are used as access key id and secret
	Bucket   string
	Endpoint string
	Region   string
}
