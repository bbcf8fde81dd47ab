package providers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/dynasty-values/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	SourceFFC        = "ffc_adp"
	SourcePlayerIDs  = "dynastyprocess"
	ffcKickerAbbrev  = "PK"
	playerIDsNameCol = "name"
	playerIDsIDCol   = "sleeper_id"
)

// FFCClient implements ADPProvider using Fantasy Football Calculator dynasty
// ADP. FFC publishes names only, so rows are joined to Sleeper ids through
// the dynastyprocess player id crosswalk.
type FFCClient struct {
	fetcher      *HTTPFetcher
	adpURL       string
	playerIDsURL string
	logger       *logrus.Logger
}

// NewFFCClient creates a new FFC ADP client
func NewFFCClient(fetcher *HTTPFetcher, adpURL, playerIDsURL string, logger *logrus.Logger) *FFCClient {
	return &FFCClient{
		fetcher:      fetcher,
		adpURL:       adpURL,
		playerIDsURL: playerIDsURL,
		logger:       logger,
	}
}

type ffcResponse struct {
	Players []ffcPlayer `json:"players"`
}

type ffcPlayer struct {
	Name     string   `json:"name"`
	Position string   `json:"position"`
	ADP      *float64 `json:"adp"`
}

func (c *FFCClient) Source() string {
	return SourceFFC
}

func (c *FFCClient) Kind() SourceKind {
	return SourceKindMarket
}

// FetchADP downloads the ADP board and the id crosswalk concurrently and
// returns rows that resolved to a Sleeper id, sorted by ascending ADP.
func (c *FFCClient) FetchADP(ctx context.Context) ([]ADPRow, error) {
	var (
		adpBody []byte
		idsBody []byte
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		body, err := c.fetcher.Get(gctx, SourceFFC, c.adpURL)
		if err != nil {
			return fmt.Errorf("failed to fetch FFC ADP: %w", err)
		}
		adpBody = body
		return nil
	})
	g.Go(func() error {
		body, err := c.fetcher.Get(gctx, SourcePlayerIDs, c.playerIDsURL)
		if err != nil {
			return fmt.Errorf("failed to fetch player IDs: %w", err)
		}
		idsBody = body
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var board ffcResponse
	if err := json.Unmarshal(adpBody, &board); err != nil {
		return nil, fmt.Errorf("failed to decode FFC ADP: %w", err)
	}

	nameToID, err := parsePlayerIDs(bytes.NewReader(idsBody))
	if err != nil {
		return nil, err
	}

	rows, unmatched := joinADP(board.Players, nameToID)
	logger.WithSource(c.logger, SourceFFC).WithFields(logrus.Fields{
		"board_size": len(board.Players),
		"matched":    len(rows),
		"unmatched":  unmatched,
	}).Info("Fetched ADP")

	return rows, nil
}

// NormalizeName lowercases a player name and strips everything outside
// [a-z0-9] so "D.J. Moore" and "DJ Moore" compare equal.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parsePlayerIDs builds a normalized-name to Sleeper id index from the
// dynastyprocess crosswalk. Later rows win on duplicate names.
func parsePlayerIDs(r io.Reader) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read player IDs header: %w", err)
	}
	nameIdx, idIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case playerIDsNameCol:
			nameIdx = i
		case playerIDsIDCol:
			idIdx = i
		}
	}
	if nameIdx < 0 || idIdx < 0 {
		return nil, fmt.Errorf("player IDs csv missing %q or %q column", playerIDsNameCol, playerIDsIDCol)
	}

	index := make(map[string]string)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse player IDs csv: %w", err)
		}
		if nameIdx >= len(record) || idIdx >= len(record) {
			continue
		}
		name, id := strings.TrimSpace(record[nameIdx]), strings.TrimSpace(record[idIdx])
		if name == "" || id == "" || id == "NA" {
			continue
		}
		index[NormalizeName(name)] = id
	}
	return index, nil
}

func joinADP(players []ffcPlayer, nameToID map[string]string) ([]ADPRow, int) {
	rows := make([]ADPRow, 0, len(players))
	unmatched := 0
	for _, p := range players {
		id, ok := nameToID[NormalizeName(p.Name)]
		if !ok {
			unmatched++
			continue
		}
		if p.ADP == nil || math.IsNaN(*p.ADP) || math.IsInf(*p.ADP, 0) {
			continue
		}
		rows = append(rows, ADPRow{
			PlayerID: id,
			Name:     p.Name,
			Position: ffcPosition(p.Position),
			ADP:      *p.ADP,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ADP < rows[j].ADP
	})
	return rows, unmatched
}

func ffcPosition(raw string) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == ffcKickerAbbrev {
		return "K"
	}
	return raw
}
