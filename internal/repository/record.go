package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/omok-backend/internal/entity"
)

var ErrRecordNotFound = errors.New("record not found")

const (
	recordKeyPrefix = "record:"
	fieldWins       = "wins"
	fieldLosses     = "losses"
)

type RecordRepository interface {
	Save(ctx context.Context, userID string, won bool) error
	GetByID(ctx context.Context, userID string) (*entity.Record, error)
}

type dbRecord struct {
	client *redis.Client
}

func NewRecordRepository(client *redis.Client) RecordRepository {
	return &dbRecord{
		client: client,
	}
}

// Save - adds one win or one loss to the user's tally.
func (that *dbRecord) Save(ctx context.Context, userID string, won bool) error {
	field := fieldLosses
	if won {
		field = fieldWins
	}

	if err := that.client.HIncrBy(ctx, recordKeyPrefix+userID, field, 1).Err(); err != nil {
		return fmt.Errorf("failed to increment %s: %w", field, err)
	}

	return nil
}

func (that *dbRecord) GetByID(ctx context.Context, userID string) (*entity.Record, error) {
	fields, err := that.client.HGetAll(ctx, recordKeyPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get record by ID: %w", err)
	}

	if len(fields) == 0 {
		return nil, ErrRecordNotFound
	}

	record := &entity.Record{UserID: userID}

	if record.Wins, err = parseCount(fields[fieldWins]); err != nil {
		return nil, fmt.Errorf("failed to parse wins: %w", err)
	}

	if record.Losses, err = parseCount(fields[fieldLosses]); err != nil {
		return nil, fmt.Errorf("failed to parse losses: %w", err)
	}

	return record, nil
}

func parseCount(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}

	return strconv.ParseInt(value, 10, 64)
}
