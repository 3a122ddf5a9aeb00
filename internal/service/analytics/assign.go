package analytics

import "encoding/json"

// assign copies v into dest through JSON so uncached results have the same
// shape as cached ones.
func assign(dest, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}
