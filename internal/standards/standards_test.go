package standards

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadList(t *testing.T) {
	store := &Store{Dir: filepath.Join(t.TempDir(), "standards")}

	names, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, store.Save(&Standard{Name: "lambda", Weights: []int{23130, 9416, 6557, 4361}}))
	require.NoError(t, store.Save(&Standard{Name: "100bp", Weights: []int{1000, 900, 800}}))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir, "notes.txt"), []byte("x"), 0644))

	names, err = store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"100bp", "lambda"}, names)

	std, err := store.Load("lambda")
	require.NoError(t, err)
	assert.Equal(t, []int{23130, 9416, 6557, 4361}, std.Weights)
	assert.Equal(t, []float64{23130, 9416, 6557, 4361}, std.Float())
}

func TestLoadSkipsBlankAndCommentLines(t *testing.T) {
	store := &Store{Dir: t.TempDir()}
	require.NoError(t, os.WriteFile(store.Path("x"), []byte("# ladder\n500\n\n 200 \n100\n"), 0644))

	std, err := store.Load("x")

	require.NoError(t, err)
	assert.Equal(t, []int{500, 200, 100}, std.Weights)
}

func TestLoadErrors(t *testing.T) {
	store := &Store{Dir: t.TempDir()}

	_, err := store.Load("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(store.Path("bad"), []byte("500\nabc\n"), 0644))
	_, err = store.Load("bad")
	assert.ErrorContains(t, err, "line 2")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		std     Standard
		wantErr bool
	}{
		{"ok", Standard{Name: "a", Weights: []int{300, 200, 100}}, false},
		{"no name", Standard{Weights: []int{300, 200}}, true},
		{"path in name", Standard{Name: "../a", Weights: []int{300, 200}}, true},
		{"too short", Standard{Name: "a", Weights: []int{300}}, true},
		{"not decreasing", Standard{Name: "a", Weights: []int{300, 300}}, true},
		{"non-positive", Standard{Name: "a", Weights: []int{300, 0}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.std.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStandard)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	store := &Store{Dir: t.TempDir()}

	err := store.Save(&Standard{Name: "a", Weights: []int{1, 2}})

	require.ErrorIs(t, err, ErrInvalidStandard)
	_, statErr := os.Stat(store.Path("a"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewStoreDefaultDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	store, err := NewStore("")
	require.NoError(t, err)
	assert.Equal(t, "standards", filepath.Base(store.Dir))

	store, err = NewStore("/tmp/custom")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom", store.Dir)
}
