package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"fsinv/internal/inv"
)

var testTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func sampleInventory(algorithm inv.HashAlgorithm) *inv.Inventory {
	return &inv.Inventory{
		RunID:        "run-1",
		Root:         "/data",
		IncludeFiles: true,
		Algorithm:    algorithm,
		Status:       inv.StatusPartial,
		Entries: []*inv.Entry{
			{
				ID: 1, Path: "/data", ParentPath: "/", Name: "data", IsDir: true,
				CreatedAt: testTime, ModifiedAt: testTime, AccessedAt: testTime,
			},
			{
				ID: 2, ParentID: 1, Path: "/data/a.txt", ParentPath: "/data", Name: "a.txt",
				Size: 5, Extension: ".txt", BaseName: "a", Hash: "abc123",
				CreatedAt: testTime, ModifiedAt: testTime, AccessedAt: testTime,
			},
		},
		Errors: []*inv.ErrorRecord{
			{Path: "/data/locked", Category: inv.CategoryEnumeration, Message: "open /data/locked: permission denied, really"},
		},
		Access: []*inv.AccessRecord{
			{Path: "/data", Owner: "alice", Group: "staff", UID: 1000, GID: 50, Mode: "drwxr-xr-x"},
		},
	}
}

func TestEntryColumns(t *testing.T) {
	cols := EntryColumns(inv.HashNone)
	assert.Len(t, cols, 12)
	assert.Equal(t, "Bytes", cols[len(cols)-1])

	cols = EntryColumns(inv.HashSHA256)
	assert.Len(t, cols, 13)
	assert.Equal(t, "SHA256", cols[len(cols)-1])
}

func TestWriteEntries_CSV(t *testing.T) {
	t.Run("without hash column", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteEntries(&buf, sampleInventory(inv.HashNone), FormatCSV))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "Path,Name,ISDIR,ID,PARENTID,PARENTPATH,CreationTime,LastAccessTime,LastWriteTime,Extension,BaseName,Bytes", lines[0])
		assert.Equal(t, "/data,data,True,1,0,/,2024-01-15T10:30:00Z,2024-01-15T10:30:00Z,2024-01-15T10:30:00Z,,,", lines[1])
		assert.Equal(t, "/data/a.txt,a.txt,False,2,1,/data,2024-01-15T10:30:00Z,2024-01-15T10:30:00Z,2024-01-15T10:30:00Z,.txt,a,5", lines[2])
	})

	t.Run("with hash column", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteEntries(&buf, sampleInventory(inv.HashMD5), FormatCSV))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasSuffix(lines[0], ",Bytes,MD5"))
		assert.True(t, strings.HasSuffix(lines[1], ",,,"), "directory size and hash cells must be empty: %s", lines[1])
		assert.True(t, strings.HasSuffix(lines[2], ",5,abc123"))
	})

	t.Run("zero timestamps are empty", func(t *testing.T) {
		inventory := &inv.Inventory{Entries: []*inv.Entry{{ID: 1, Path: "/x", Name: "x", IsDir: true}}}
		var buf bytes.Buffer
		require.NoError(t, WriteEntries(&buf, inventory, FormatCSV))
		assert.Contains(t, buf.String(), "/x,x,True,1,0,,,,,,,")
	})
}

func TestWriteEntries_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, sampleInventory(inv.HashSHA256), FormatJSON))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "/data", rows[0]["Path"])
	assert.Equal(t, true, rows[0]["ISDIR"])
	assert.Equal(t, "", rows[0]["SHA256"])
	assert.Contains(t, rows[0], "Bytes")
	assert.Nil(t, rows[0]["Bytes"], "directory size must be null")
	assert.Equal(t, float64(5), rows[1]["Bytes"])
	assert.Equal(t, float64(1), rows[1]["PARENTID"])
	assert.Equal(t, "abc123", rows[1]["SHA256"])

	out := buf.String()
	assert.Less(t, strings.Index(out, `"Path"`), strings.Index(out, `"Bytes"`), "column order must be preserved")
}

func TestWriteEntries_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, sampleInventory(inv.HashNone), FormatYAML))

	var rows []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Contains(t, rows[0], "Bytes")
	assert.Nil(t, rows[0]["Bytes"], "directory size must be null")
	assert.Equal(t, "/data/a.txt", rows[1]["Path"])
	assert.Equal(t, false, rows[1]["ISDIR"])
	assert.Equal(t, 5, rows[1]["Bytes"])
	assert.Equal(t, "2024-01-15T10:30:00Z", rows[1]["LastWriteTime"])
	assert.NotContains(t, rows[1], "MD5")
}

func TestWriteEntries_EmptyInventory(t *testing.T) {
	empty := &inv.Inventory{}

	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, empty, FormatJSON))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteEntries(&buf, empty, FormatYAML))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteErrors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteErrors(&buf, sampleInventory(inv.HashNone).Errors, FormatCSV))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Path,Category,Message", lines[0])
	assert.Equal(t, `/data/locked,Enumeration,"open /data/locked: permission denied, really"`, lines[1])
}

func TestWriteErrors_NoRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteErrors(&buf, nil, FormatCSV))
	assert.Equal(t, "Path,Category,Message\n", buf.String())
}

func TestWriteAccess(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAccess(&buf, sampleInventory(inv.HashNone).Access, FormatJSON))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0]["Owner"])
	assert.Equal(t, "staff", rows[0]["Group"])
	assert.Equal(t, float64(1000), rows[0]["UID"])
	assert.Equal(t, "drwxr-xr-x", rows[0]["Mode"])
}

func TestWriteRows_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := WriteErrors(&buf, nil, Format("xml"))
	assert.Error(t, err)
}
