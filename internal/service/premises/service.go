package premises

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/domain"
	keys "github.com/sarjanshah14/ParkingSpotFinder/internal/redis"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/repository"
	redisrepo "github.com/sarjanshah14/ParkingSpotFinder/internal/repository/redis"
)

type Config struct {
	PremiseTTL   time.Duration
	ListTTL      time.Duration
	DefaultLimit int
	MaxLimit     int
}

// Service is the read side of the premise catalog. Without a cache every
// call goes to the database.
type Service struct {
	reader repository.PremiseReader
	cache  *redisrepo.Cache
	cfg    Config
}

func New(reader repository.PremiseReader, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.PremiseTTL <= 0 {
		cfg.PremiseTTL = 30 * time.Second
	}

	if cfg.ListTTL <= 0 {
		cfg.ListTTL = 30 * time.Second
	}

	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}

	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 200
	}

	return &Service{
		reader: reader,
		cache:  cache,
		cfg:    cfg,
	}
}

// Get retrieves a premise by its ID.
//
// Returns:
//   - error: premises.ErrPremiseNotFound if the premise is not found.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Premise, error) {
	const op = "service.premises.Get"

	load := func(ctx context.Context) (domain.Premise, error) {
		p, err := s.reader.GetPremise(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Premise{}, ErrPremiseNotFound
			}
			return domain.Premise{}, err
		}
		return *p, nil
	}

	var (
		p   domain.Premise
		err error
	)
	if s.cache != nil {
		p, err = redisrepo.GetOrSetJSON(ctx, s.cache, keys.KeyPremise(id), s.cfg.PremiseTTL, load)
	} else {
		p, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &p, nil
}

// List returns one page of premises ordered by ID. limit is clamped to
// [1, MaxLimit]; zero means DefaultLimit.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Premise, error) {
	const op = "service.premises.List"

	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	load := func(ctx context.Context) ([]domain.Premise, error) {
		return s.reader.ListPremises(ctx, limit, offset)
	}

	if s.cache == nil {
		out, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return out, nil
	}

	gen, err := s.cache.PremiseListGen(ctx)
	if err != nil {
		out, lerr := load(ctx)
		if lerr != nil {
			return nil, fmt.Errorf("%s:%w", op, lerr)
		}
		return out, nil
	}

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, keys.KeyPremiseList(gen, limit, offset), s.cfg.ListTTL, load)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
