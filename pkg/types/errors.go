package types

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/pharmalink-go/pkg/errors"
)

func missingField(name string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("address: missing %s", name))
}
