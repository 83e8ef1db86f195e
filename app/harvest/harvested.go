package harvest

import "github.com/lysyi3m/request-hub/app/request"

// Harvested pairs a request with the hash of the feed item it was built from.
type Harvested struct {
	ItemHash string
	Request  *request.Request
}
