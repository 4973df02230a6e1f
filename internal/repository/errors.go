package repository

import (
	"errors"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
)

var (
	// ErrNotFound запись не найдена
	ErrNotFound = domain.ErrNotFound

	// ErrDuplicate нарушено ограничение уникальности
	// (вторая ACTIVE или PENDING подписка в категории)
	ErrDuplicate = errors.New("duplicate record")
)
