package instance

import "github.com/angelmondragon/marketplace-backend/pkg/env"

// GetID names this process in logs. An explicit id wins over the platform's
// dyno or host name.
func GetID() string {
	for _, key := range []string{"MARKETPLACE_INSTANCE_ID", "DYNO", "HOSTNAME"} {
		if id := env.Get(key, ""); id != "" {
			return id
		}
	}
	return "local"
}
