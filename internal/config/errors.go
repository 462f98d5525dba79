package config

import "errors"

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrBufferSizeInvalid  = errors.New("buffer_size must be a positive integer")
	ErrPermInvalid        = errors.New("perm must be an octal permission like \"0644\"")
	ErrAdviseInvalid      = errors.New("advise must be one of none, normal, sequential, random")
)
