package internal

import (
	"time"
)

type Config struct {
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BufferSize        int           `env:"BUFFER_SIZE,required=true"`
	SinkTimeout       time.Duration `env:"SINK_TIMEOUT,required=true"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,required=true"`
	TokenSecret       string        `env:"TOKEN_SECRET,required=true"`
	TokenDuration     time.Duration `env:"TOKEN_DURATION,required=true"`
}
