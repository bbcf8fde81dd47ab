package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"D.J. Moore", "djmoore"},
		{"DJ Moore", "djmoore"},
		{"Ja'Marr Chase", "jamarrchase"},
		{"Amon-Ra St. Brown", "amonrastbrown"},
		{"Marvin Harrison Jr.", "marvinharrisonjr"},
		{"  ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), tt.in)
	}
}

const ffcFixture = `{"status":"Success","players":[
  {"name":"Ja'Marr Chase","position":"WR","adp":3.2},
  {"name":"Bijan Robinson","position":"RB","adp":1.4},
  {"name":"Unknown Rookie","position":"RB","adp":40.0},
  {"name":"Justin Tucker","position":"PK","adp":150.5},
  {"name":"Broken Row","position":"QB","adp":null}
]}`

const playerIDsFixture = `mfl_id,sportradar_id,name,merge_name,position,sleeper_id
13604,abc,"Chase, Ja'Marr",jamarrchase,WR,7564
1,def,Ja'Marr Chase,jamarrchase,WR,7564
2,ghi,Bijan Robinson,bijanrobinson,RB,9509
3,jkl,Justin Tucker,justintucker,PK,1264
4,mno,Broken Row,brokenrow,QB,5555
5,pqr,No Sleeper,nosleeper,TE,NA
`

func newFFCServer(t *testing.T, idsBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/adp", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(ffcFixture))
	})
	mux.HandleFunc("/ids.csv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(idsBody))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFFCClient_FetchADP(t *testing.T) {
	server := newFFCServer(t, playerIDsFixture)
	breaker := &countingBreaker{}
	fetcher := NewHTTPFetcher(5*time.Second, 0, breaker, quietLogger())
	client := NewFFCClient(fetcher, server.URL+"/adp", server.URL+"/ids.csv", quietLogger())

	rows, err := client.FetchADP(context.Background())
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, ADPRow{PlayerID: "9509", Name: "Bijan Robinson", Position: "RB", ADP: 1.4}, rows[0])
	assert.Equal(t, "7564", rows[1].PlayerID)
	assert.Equal(t, "1264", rows[2].PlayerID)
	assert.Equal(t, "K", rows[2].Position)

	assert.Equal(t, SourceFFC, client.Source())
	assert.Equal(t, SourceKindMarket, client.Kind())
	assert.Equal(t, 1, breaker.calls[SourceFFC])
	assert.Equal(t, 1, breaker.calls[SourcePlayerIDs])
}

func TestFFCClient_MissingCrosswalkColumns(t *testing.T) {
	server := newFFCServer(t, "name,position\nJa'Marr Chase,WR\n")
	client := NewFFCClient(NewHTTPFetcher(time.Second, 0, nil, quietLogger()), server.URL+"/adp", server.URL+"/ids.csv", quietLogger())

	_, err := client.FetchADP(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sleeper_id")
}

func TestFFCClient_UpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".csv") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(ffcFixture))
	}))
	defer server.Close()

	client := NewFFCClient(NewHTTPFetcher(time.Second, 0, nil, quietLogger()), server.URL+"/adp", server.URL+"/ids.csv", quietLogger())
	_, err := client.FetchADP(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "player IDs")
}

func TestParsePlayerIDs_LaterRowsWin(t *testing.T) {
	index, err := parsePlayerIDs(strings.NewReader("name,sleeper_id\nJosh Allen,111\nJosh Allen,4984\n"))
	require.NoError(t, err)
	assert.Equal(t, "4984", index["joshallen"])
}
