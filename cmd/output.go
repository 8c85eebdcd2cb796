package cmd

import (
	"encoding/json"
	"fmt"
	"os"
)

// outputJSON writes v to stdout as indented JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

func grantedMark(ok bool) string {
	if ok {
		return "granted"
	}
	return "denied"
}
