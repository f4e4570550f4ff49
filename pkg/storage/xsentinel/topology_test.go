package xsentinel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_MultiNode(t *testing.T) {
	topo, err := Parse("redis+sentinel://h1:26379,h2:26380/mymaster")
	require.NoError(t, err)

	assert.Equal(t, []Node{{Host: "h1", Port: 26379}, {Host: "h2", Port: 26380}}, topo.Nodes)
	assert.Equal(t, []string{"h1:26379", "h2:26380"}, topo.Addrs())
	assert.Equal(t, "mymaster", topo.ServiceName)
	assert.False(t, topo.Async)
	assert.Equal(t, SchemeSentinel, topo.Scheme)
	assert.Equal(t, DefaultConnectTimeout, topo.Options.ConnectTimeout)
	assert.Empty(t, topo.Options.SentinelPassword)
}

func TestParse_ServiceName(t *testing.T) {
	topo, err := Parse("redis+sentinel://h1:26379", WithServiceName("svc"))
	require.NoError(t, err)
	assert.Equal(t, "svc", topo.ServiceName)

	// 路径优先于显式参数
	topo, err = Parse("redis+sentinel://h1:26379/from-path", WithServiceName("svc"))
	require.NoError(t, err)
	assert.Equal(t, "from-path", topo.ServiceName)

	_, err = Parse("redis+sentinel://h1:26379")
	assert.ErrorIs(t, err, ErrServiceNameMissing)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = Parse("redis+sentinel://h1:26379/")
	assert.ErrorIs(t, err, ErrServiceNameMissing)
}

func TestParse_InvalidNodes(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{"missing port", "redis+sentinel://h1/svc"},
		{"port not integer", "redis+sentinel://h1:abc/svc"},
		{"port out of range", "redis+sentinel://h1:70000/svc"},
		{"port zero", "redis+sentinel://h1:0/svc"},
		{"empty host", "redis+sentinel://:26379/svc"},
		{"empty list", "redis+sentinel:///svc"},
		{"trailing comma", "redis+sentinel://h1:1,/svc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.uri)
			assert.ErrorIs(t, err, ErrInvalidNode)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestParse_IPv6(t *testing.T) {
	topo, err := Parse("redis+sentinel://[::1]:26379,10.0.0.1:26379/svc")
	require.NoError(t, err)
	assert.Equal(t, "::1", topo.Nodes[0].Host)
	assert.Equal(t, "[::1]:26379", topo.Nodes[0].Addr())
}

func TestParse_Scheme(t *testing.T) {
	topo, err := Parse("async+redis+sentinel://h1:26379/svc")
	require.NoError(t, err)
	assert.True(t, topo.Async)
	assert.Equal(t, SchemeAsyncSentinel, topo.Scheme)

	for _, uri := range []string{"redis://h1:6379/0", "redis+cluster://h1:1/svc", "h1:26379"} {
		_, err := Parse(uri)
		assert.ErrorIs(t, err, ErrUnsupportedScheme, uri)
	}
}

func TestParse_Credentials(t *testing.T) {
	topo, err := Parse("redis+sentinel://user:p%40ss@h1:26379/svc")
	require.NoError(t, err)
	assert.Equal(t, "user", topo.Options.SentinelUsername)
	assert.Equal(t, "p@ss", topo.Options.SentinelPassword)
	assert.Empty(t, topo.Options.Password)
	assert.Equal(t, "redis+sentinel://user:***@h1:26379/svc", topo.String())

	// URI 中为空的凭据不覆盖调用方的值
	topo, err = Parse("redis+sentinel://:only-pass@h1:26379/svc",
		WithOptions(Options{SentinelUsername: "base-user", SentinelPassword: "base-pass"}))
	require.NoError(t, err)
	assert.Equal(t, "base-user", topo.Options.SentinelUsername)
	assert.Equal(t, "only-pass", topo.Options.SentinelPassword)

	topo, err = Parse("redis+sentinel://h1:26379/svc",
		WithOptions(Options{SentinelPassword: "base-pass"}))
	require.NoError(t, err)
	assert.Equal(t, "base-pass", topo.Options.SentinelPassword)
}

func TestParse_Query(t *testing.T) {
	topo, err := Parse("redis+sentinel://h1:26379/svc?connection_timeout=0.5&max_connections=20&db=2" +
		"&username=app&password=pw&read_timeout=1s&custom=x")
	require.NoError(t, err)

	o := topo.Options
	assert.Equal(t, 500*time.Millisecond, o.ConnectTimeout)
	assert.Equal(t, 20, o.MaxConnections)
	assert.Equal(t, 2, o.DB)
	assert.Equal(t, "app", o.Username)
	assert.Equal(t, "pw", o.Password)
	assert.Equal(t, map[string]string{"read_timeout": "1s", "custom": "x"}, o.Extras)

	topo, err = Parse("redis+sentinel://h1:26379/svc?connection_timeout=150ms")
	require.NoError(t, err)
	assert.Equal(t, 150*time.Millisecond, topo.Options.ConnectTimeout)
}

func TestParse_QueryMergesExtras(t *testing.T) {
	base := Options{Extras: map[string]string{"read_timeout": "2s", "client_name": "base"}}
	topo, err := Parse("redis+sentinel://h1:26379/svc?read_timeout=1s", WithOptions(base))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"read_timeout": "1s", "client_name": "base"}, topo.Options.Extras)

	// 调用方的 map 不被修改
	assert.Equal(t, "2s", base.Extras["read_timeout"])
}

func TestParse_InvalidQuery(t *testing.T) {
	for _, q := range []string{
		"connection_timeout=soon",
		"connection_timeout=-1",
		"connection_timeout=0",
		"max_connections=many",
		"max_connections=-3",
		"db=x",
	} {
		_, err := Parse("redis+sentinel://h1:26379/svc?" + q)
		assert.ErrorIs(t, err, ErrInvalidOption, q)
	}
}

func TestParseSeconds(t *testing.T) {
	d, err := ParseSeconds("2")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)

	d, err = ParseSeconds("1m")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	_, err = ParseSeconds("NaN")
	assert.Error(t, err)
}
