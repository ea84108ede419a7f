package idgen

import (
	"github.com/google/uuid"
)

// ID prefixes for different models
const (
	PrefixStudent  = "std_"
	PrefixWarden   = "wrd_"
	PrefixWatchman = "wm_"
	PrefixOutpass  = "op_"
	PrefixLog      = "log_"
)

// NewStudent generates a new student ID with std_ prefix
func NewStudent() string {
	return PrefixStudent + uuid.New().String()
}

// NewWarden generates a new warden ID with wrd_ prefix
func NewWarden() string {
	return PrefixWarden + uuid.New().String()
}

// NewWatchman generates a new watchman ID with wm_ prefix
func NewWatchman() string {
	return PrefixWatchman + uuid.New().String()
}

// NewOutpass generates a new outpass ID with op_ prefix
func NewOutpass() string {
	return PrefixOutpass + uuid.New().String()
}

// NewLog generates a new entry/exit log ID with log_ prefix
func NewLog() string {
	return PrefixLog + uuid.New().String()
}

// New generates a generic UUID without prefix (for internal use only)
func New() string {
	return uuid.New().String()
}
