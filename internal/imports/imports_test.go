package imports

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	ports    map[string]Port
	airports map[string]Airport
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{ports: make(map[string]Port), airports: make(map[string]Airport)}
}

func (m *memoryRepo) PortExists(_ context.Context, code string) (bool, error) {
	_, ok := m.ports[code]
	return ok, nil
}

func (m *memoryRepo) CreatePort(_ context.Context, port Port) error {
	m.ports[port.Code] = port
	return nil
}

func (m *memoryRepo) AirportExists(_ context.Context, code string) (bool, error) {
	_, ok := m.airports[code]
	return ok, nil
}

func (m *memoryRepo) CreateAirport(_ context.Context, airport Airport) error {
	m.airports[airport.Code] = airport
	return nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, slog.New(slog.DiscardHandler))
}

func TestImportPorts(t *testing.T) {
	repo := newMemoryRepo()
	repo.ports["SGSIN"] = Port{Code: "SGSIN"}

	csv := strings.Join([]string{
		"Code,Name,Country",
		"IDJKT,Tanjung Priok,Indonesia",
		"SGSIN,Singapore,Singapore",
		",Nameless,Nowhere",
		"MYPKG,Port Klang,Malaysia",
	}, "\n")

	result, err := newTestService(repo).ImportPorts(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.NotEmpty(t, result.BatchID)
	require.Equal(t, 2, result.Created)
	require.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	require.Equal(t, 4, result.Errors[0].Line)

	require.Equal(t, "Tanjung Priok", repo.ports["IDJKT"].Name)
	require.Equal(t, "Malaysia", repo.ports["MYPKG"].Country)
}

func TestImportPortsHeaderAliases(t *testing.T) {
	repo := newMemoryRepo()
	csv := "port_code,port_name\nIDSUB,Tanjung Perak\n"

	result, err := newTestService(repo).ImportPorts(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 1, result.Created)
	require.Equal(t, "Tanjung Perak", repo.ports["IDSUB"].Name)
}

func TestImportPortsMissingCodeHeader(t *testing.T) {
	_, err := newTestService(newMemoryRepo()).ImportPorts(context.Background(),
		strings.NewReader("name,country\nSomewhere,ID\n"))
	require.ErrorIs(t, err, ErrMissingHeader)
}

func TestImportAirports(t *testing.T) {
	repo := newMemoryRepo()
	csv := strings.Join([]string{
		"iata,name,city,country",
		"CGK,Soekarno-Hatta,Jakarta,Indonesia",
		"SIN,Changi,Singapore,Singapore",
	}, "\n")

	result, err := newTestService(repo).ImportAirports(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 2, result.Created)
	require.Equal(t, "Jakarta", repo.airports["CGK"].City)
}

func TestImportBatchIDsAreUnique(t *testing.T) {
	service := newTestService(newMemoryRepo())
	first, err := service.ImportPorts(context.Background(), strings.NewReader("code\nAAA\n"))
	require.NoError(t, err)
	second, err := service.ImportPorts(context.Background(), strings.NewReader("code\nBBB\n"))
	require.NoError(t, err)
	require.NotEqual(t, first.BatchID, second.BatchID)
}
