package sha256

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawler-console/internal/crawler"
)

var _ crawler.Hasher = (*Hasher)(nil)

const emptyDigest = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func TestSum(t *testing.T) {
	t.Parallel()

	require.Equal(t, emptyDigest, Sum(nil))
	got := Sum([]byte(`[{"id":"r1"}]`))
	require.Len(t, got, 64)
	require.Equal(t, got, Sum([]byte(`[{"id":"r1"}]`)))
}

func TestTeeDigestsWhatWasRead(t *testing.T) {
	t.Parallel()

	payload := `id,title` + "\n" + `r1,coffee` + "\n"
	r, digest := New().Tee(iotest.OneByteReader(strings.NewReader(payload)))
	require.Equal(t, emptyDigest, digest())

	b, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, payload, string(b))
	require.Equal(t, Sum([]byte(payload)), digest())
}
