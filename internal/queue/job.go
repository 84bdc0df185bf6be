package queue

// InvalidateJob is what we push to Redis Streams. Key is the relative
// asset path (or folder namespace when Prefix is set) whose cached
// derivatives the gateway must drop.
type InvalidateJob struct {
	Key    string `json:"key"`
	Prefix bool   `json:"prefix,omitempty"` // drop the whole namespace under Key
}
