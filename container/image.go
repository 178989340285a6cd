package container

import (
	"fmt"

	"github.com/distribution/reference"
)

// CheckImage returns an error unless image names the same repository as
// one of compatible, ignoring tag and digest.
func CheckImage(image string, compatible ...string) error {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return fmt.Errorf("invalid image %q: %w", image, err)
	}
	name := named.Name()

	for _, other := range compatible {
		cnamed, err := reference.ParseNormalizedNamed(other)
		if err != nil {
			return fmt.Errorf("invalid image %q: %w", other, err)
		}
		if cnamed.Name() == name {
			return nil
		}
	}

	return fmt.Errorf("image %q is not compatible with %v", reference.FamiliarString(named), compatible)
}
