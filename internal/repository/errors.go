package repository

import (
	stderrors "errors"

	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/helper"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// translate maps gorm/driver errors onto the package sentinels and adds op
// as context.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(ErrNotFound, op)
	}
	if helper.IsDuplicateKey(err) {
		return errors.Wrapf(ErrDuplicateKey, "%s: %v", op, err)
	}
	return errors.Wrap(err, op)
}
