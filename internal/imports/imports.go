package imports

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Port is a sea port master row.
type Port struct {
	Code    string
	Name    string
	Country string
}

// Airport is an airport master row.
type Airport struct {
	Code    string
	Name    string
	City    string
	Country string
}

// Repository is the master-data store for bootstrap imports.
type Repository interface {
	PortExists(ctx context.Context, code string) (bool, error)
	CreatePort(ctx context.Context, port Port) error
	AirportExists(ctx context.Context, code string) (bool, error)
	CreateAirport(ctx context.Context, airport Airport) error
}

// RowError records one rejected CSV row; the rest of the file still loads.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Result summarises one import batch.
type Result struct {
	BatchID string     `json:"batch_id"`
	Created int        `json:"created"`
	Skipped int        `json:"skipped"`
	Errors  []RowError `json:"errors,omitempty"`
}

// ErrMissingHeader rejects files without the mandatory code column.
var ErrMissingHeader = errors.New("csv header is missing a code column")

// Service loads port and airport master data from CSV files.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// headerIndex maps known column aliases to their position. Matching is
// case-insensitive and ignores surrounding whitespace.
func headerIndex(header []string, aliases ...string) int {
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(col))
		for _, alias := range aliases {
			if name == alias {
				return i
			}
		}
	}
	return -1
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// ImportPorts reads a port CSV: code (required), name, country. Rows whose
// code already exists are skipped; malformed rows are collected, not fatal.
func (s *Service) ImportPorts(ctx context.Context, r io.Reader) (Result, error) {
	result := Result{BatchID: uuid.NewString()}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read csv header: %w", err)
	}
	codeIdx := headerIndex(header, "code", "port_code")
	nameIdx := headerIndex(header, "name", "port_name")
	countryIdx := headerIndex(header, "country")
	if codeIdx < 0 {
		return Result{}, ErrMissingHeader
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}
		port := Port{
			Code:    cell(record, codeIdx),
			Name:    cell(record, nameIdx),
			Country: cell(record, countryIdx),
		}
		if port.Code == "" {
			result.Errors = append(result.Errors, RowError{Line: line, Message: "empty port code"})
			continue
		}
		exists, err := s.repo.PortExists(ctx, port.Code)
		if err != nil {
			return Result{}, err
		}
		if exists {
			result.Skipped++
			continue
		}
		if err := s.repo.CreatePort(ctx, port); err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}
		result.Created++
	}

	s.logger.Info("port import finished",
		slog.String("batch", result.BatchID),
		slog.Int("created", result.Created),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", len(result.Errors)))
	return result, nil
}

// ImportAirports reads an airport CSV: code (required, IATA), name, city,
// country.
func (s *Service) ImportAirports(ctx context.Context, r io.Reader) (Result, error) {
	result := Result{BatchID: uuid.NewString()}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read csv header: %w", err)
	}
	codeIdx := headerIndex(header, "code", "iata", "airport_code")
	nameIdx := headerIndex(header, "name", "airport_name")
	cityIdx := headerIndex(header, "city")
	countryIdx := headerIndex(header, "country")
	if codeIdx < 0 {
		return Result{}, ErrMissingHeader
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}
		airport := Airport{
			Code:    cell(record, codeIdx),
			Name:    cell(record, nameIdx),
			City:    cell(record, cityIdx),
			Country: cell(record, countryIdx),
		}
		if airport.Code == "" {
			result.Errors = append(result.Errors, RowError{Line: line, Message: "empty airport code"})
			continue
		}
		exists, err := s.repo.AirportExists(ctx, airport.Code)
		if err != nil {
			return Result{}, err
		}
		if exists {
			result.Skipped++
			continue
		}
		if err := s.repo.CreateAirport(ctx, airport); err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}
		result.Created++
	}

	s.logger.Info("airport import finished",
		slog.String("batch", result.BatchID),
		slog.Int("created", result.Created),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", len(result.Errors)))
	return result, nil
}
