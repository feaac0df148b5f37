package helpers

import (
	"fmt"
	"time"
)

// GenerateRunID returns an identifier for one run of capability name
func GenerateRunID(name string) string {
	return fmt.Sprintf("%s-%d", name, time.Now().UnixNano())
}
