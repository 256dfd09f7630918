package repository_test

import (
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

var _ service.Repository = (*repository.Store)(nil)
