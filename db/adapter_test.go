package db

import (
	"testing"

	"github.com/kasuganosora/arena/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Modes(t *testing.T) {
	db, err := Open(config.DatabaseConfig{Mode: ModeNone})
	require.NoError(t, err)
	assert.Nil(t, db)

	db, err = Open(config.DatabaseConfig{Mode: ModeMemory})
	require.NoError(t, err)
	require.NotNil(t, db)
	require.NoError(t, db.Exec("CREATE TABLE t (id INTEGER)").Error)
	require.NoError(t, db.Exec("INSERT INTO t VALUES (1)").Error)
	var n int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM t").Scan(&n).Error)
	assert.Equal(t, int64(1), n)

	_, err = Open(config.DatabaseConfig{Mode: "embedded_xml"})
	assert.Error(t, err)
}

func TestOpen_MySQLRequiresDSN(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Mode: ModeMySQL})
	assert.Error(t, err)
}
