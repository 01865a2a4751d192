package utils

import (
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// DecodeAttributes converts a loosely typed map, such as parsed JSON or a DoCommand request, into
// out, a pointer to a struct with json tags. Numbers and strings are converted where they are
// unambiguous. Keys without a matching field are an error.
func DecodeAttributes(attributes map[string]interface{}, out interface{}) error {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(attributes); err != nil {
		return err
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return errors.Errorf("unknown attributes %v", md.Unused)
	}
	return nil
}
