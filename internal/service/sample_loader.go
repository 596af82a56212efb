package service

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/voicemint/api/internal/apperr"
	"github.com/voicemint/api/internal/client"
	"github.com/voicemint/api/internal/model"
)

// SampleLoader fetches a project's recorded clips from object storage and
// assembles them into the blobs the provider's create-voice call expects.
type SampleLoader struct {
	storage         client.StorageClient
	downloadTimeout time.Duration
	minViable       int
}

func NewSampleLoader(storage client.StorageClient, downloadTimeout time.Duration, minViable int) *SampleLoader {
	if minViable < 1 {
		minViable = 1
	}
	return &SampleLoader{
		storage:         storage,
		downloadTimeout: downloadTimeout,
		minViable:       minViable,
	}
}

// Load downloads each sample under its own timeout. A failed or empty
// download is logged and skipped rather than aborting the run; only
// falling below the viable minimum is fatal.
func (l *SampleLoader) Load(ctx context.Context, samples []model.Sample) ([]client.VoiceSample, error) {
	blobs := make([]client.VoiceSample, 0, len(samples))

	for _, sample := range samples {
		data, err := l.download(ctx, sample.StorageKey)
		if err != nil {
			log.Printf("[Samples] skipping clip %d of project %s: %v", sample.ClipNumber, sample.ProjectID, err)
			continue
		}
		if len(data) == 0 {
			log.Printf("[Samples] skipping clip %d of project %s: empty object", sample.ClipNumber, sample.ProjectID)
			continue
		}

		blobs = append(blobs, client.VoiceSample{
			Filename:    fmt.Sprintf("clip_%d%s", sample.ClipNumber, path.Ext(sample.StorageKey)),
			ContentType: contentTypeForKey(sample.StorageKey),
			Data:        data,
		})
	}

	if len(blobs) < l.minViable {
		return nil, apperr.Newf(apperr.EmptyResult, "no valid samples: %d of %d clips usable (need %d)",
			len(blobs), len(samples), l.minViable)
	}
	return blobs, nil
}

func (l *SampleLoader) download(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.downloadTimeout)
	defer cancel()
	return l.storage.Download(ctx, key)
}

// contentTypeForKey infers the audio MIME type from the object's file
// extension. Browser recordings default to webm.
func contentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	case ".webm":
		return "audio/webm"
	default:
		return "audio/webm"
	}
}
