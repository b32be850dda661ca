package services

import (
	"context"
	"errors"
	"strings"
	"text/template"
	"time"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"
	apperrors "dataplug/pkg/errors"
	"dataplug/pkg/optimize"
	"dataplug/pkg/utils"
	"dataplug/pkg/validation"

	"go.uber.org/zap"
)

var snippetBuffers = optimize.NewBufferPool(64 << 10)

var snippetFuncs = template.FuncMap{"line": utils.SingleLine}

// Names only reach comment lines through line, so a stored name can never
// open a new statement.
var snippetTemplates = map[string]*template.Template{
	"node": template.Must(template.New("node").Funcs(snippetFuncs).Parse(`// {{line .Name}}
// npm install ws
const WebSocket = require("ws");

const ws = new WebSocket({{printf "%q" .Endpoint}});

ws.on("open", () => console.log("connected to", {{printf "%q" .Name}}));
ws.on("message", (data) => console.log(data.toString()));
ws.on("error", (err) => console.error(err));
ws.on("close", () => console.log("disconnected"));
`)),
	"python": template.Must(template.New("python").Funcs(snippetFuncs).Parse(`# {{line .Name}}
# pip install websockets
import asyncio
import websockets


async def main():
    async with websockets.connect({{printf "%q" .Endpoint}}) as ws:
        print("connected to", {{printf "%q" .Name}})
        async for message in ws:
            print(message)


asyncio.run(main())
`)),
}

// SnippetLanguages lists the languages Snippet can render.
func SnippetLanguages() []string {
	return []string{"node", "python"}
}

type catalogService struct {
	repo      ports.StreamRepository
	listeners []ports.CatalogListener
	metrics   ports.Metrics
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewCatalogService(
	repo ports.StreamRepository,
	metrics ports.Metrics,
	logger *zap.SugaredLogger,
	listeners ...ports.CatalogListener,
) ports.CatalogService {
	return &catalogService{
		repo:      repo,
		listeners: listeners,
		metrics:   metricsOrNop(metrics),
		logger:    logger,
		now:       time.Now,
	}
}

// AddStream registers a stream. The endpoint's format is checked; its
// reachability is not.
func (s *catalogService) AddStream(ctx context.Context, input domain.NewStreamInput) (*domain.Stream, error) {
	name := utils.SingleLine(input.Name)
	endpoint := strings.TrimSpace(input.Endpoint)
	description := utils.SanitizeString(input.Description)

	if err := validation.ValidateStreamName(name); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	if err := validation.ValidateEndpointURL(endpoint); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	if err := validation.ValidateDescription(description); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	var tags []string
	for _, tag := range input.Tags {
		if tag = utils.SingleLine(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	if err := validation.ValidateTags(tags); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	stream := &domain.Stream{
		ID:          domain.StreamID(utils.NewStreamID()),
		Name:        name,
		Endpoint:    endpoint,
		Description: description,
		Tags:        tags,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.Create(ctx, stream); err != nil {
		s.logger.Errorw("failed to add stream",
			"name", name,
			"error", err,
		)
		return nil, apperrors.NewInternalError("failed to add stream", err)
	}

	s.logger.Infow("stream added",
		"stream_id", stream.ID,
		"name", stream.Name,
	)
	s.metrics.RecordStreamAdded()
	for _, l := range s.listeners {
		l.StreamAdded(ctx, stream)
	}
	return stream, nil
}

func (s *catalogService) GetStream(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	if err := validation.ValidateStreamID(string(id)); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	stream, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrStreamNotFound) {
		return nil, apperrors.NewNotFoundError("stream")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load stream", err)
	}
	return stream, nil
}

// Snippet renders starter client code for a stream.
func (s *catalogService) Snippet(ctx context.Context, id domain.StreamID, language string) (string, error) {
	tmpl, ok := snippetTemplates[strings.ToLower(language)]
	if !ok {
		return "", apperrors.NewInvalidInputError("unsupported language; use node or python").
			WithContext("language", language)
	}

	stream, err := s.GetStream(ctx, id)
	if err != nil {
		return "", err
	}

	buf := snippetBuffers.Get()
	defer snippetBuffers.Put(buf)
	if err := tmpl.Execute(buf, stream); err != nil {
		return "", apperrors.NewInternalError("failed to render snippet", err)
	}
	return buf.String(), nil
}
