// Package sndw holds process-wide defaults shared by the soundware packages.
package sndw

const (
	DefaultAppName     = "soundware"
	DefaultConfigPath  = "/etc/soundware"
	DefaultDatabaseDir = "data"
	DefaultDatabaseDSN = "file:data/soundware.db"
	DefaultStaticDir   = "public"
	DefaultListenAddr  = ":3000"

	// DefaultSessionID is used when a caller does not name its conversation.
	DefaultSessionID = "default"
)
