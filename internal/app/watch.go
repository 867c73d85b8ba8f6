package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"facetkit/internal/adapters"
)

// Watch validates once, then again whenever the configuration file, a
// registry descriptor or the runtime bridge file changes. It returns when
// ctx is done.
func (s Service) Watch(ctx context.Context, req WatchRequest) error {
	paths, err := watchedFiles(req.Validate)
	if err != nil {
		return err
	}
	watcher, err := adapters.NewConfigurationWatcher(paths, req.Debounce)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		_ = watcher.Stop()
		return err
	}
	defer watcher.Stop()

	report := func() {
		result, err := s.Validate(ctx, req.Validate)
		if req.OnResult != nil {
			req.OnResult(result, err)
		}
	}
	report()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			log.Ctx(ctx).Debug().Strs("paths", event.Paths).Msg("revalidating configuration")
			report()
		}
	}
}

func watchedFiles(req ValidateRequest) ([]string, error) {
	var paths []string
	if path := strings.TrimSpace(req.Configuration.Path); path != "" && strings.TrimSpace(req.Configuration.Store) == "" {
		paths = append(paths, path)
	}
	if patterns := trimAll(req.Registry.Patterns); len(patterns) > 0 {
		files, err := adapters.NewRegistryFileAdapter(patterns...).Files()
		if err != nil {
			return nil, err
		}
		paths = append(paths, files...)
	}
	if runtimes := strings.TrimSpace(req.Registry.Runtimes); runtimes != "" {
		paths = append(paths, runtimes)
	}
	if len(paths) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("nothing to watch")
	}
	return paths, nil
}
