package types

import (
	"errors"
	"strings"
)

// Config holds the parameters for Backend.Attach.
type Config struct {
	DataDir string `json:"data_dir" yaml:"data_dir"`
	DBFile  string `json:"db_file" yaml:"db_file"`
}

// DefaultDBFile is the database file name used when Config.DBFile is empty.
const DefaultDBFile = "friction.db"

// MemoryDBFile selects an in-memory database.
const MemoryDBFile = ":memory:"

// Config validation errors.
var (
	ErrDBFileInvalid = errors.New("db_file must be a bare file name")
)

// GetDBFile returns the database file name, applying the default.
func (c Config) GetDBFile() string {
	if c.DBFile == "" {
		return DefaultDBFile
	}
	return c.DBFile
}

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	name := c.GetDBFile()
	if name == MemoryDBFile {
		return nil
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return ErrDBFileInvalid
	}
	return nil
}
