// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"

	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/offline"
)

// localOnly refuses providers outside this machine before next is called.
type localOnly struct {
	next StreamClient
}

// LocalOnly wraps c so it only streams from localhost providers.
func LocalOnly(c StreamClient) StreamClient {
	return localOnly{next: c}
}

func (l localOnly) Stream(ctx context.Context, p config.Provider, history []model.Turn, emit func(model.StreamEvent)) error {
	if err := offline.ValidateURL(p.BaseURL, true); err != nil {
		err = fmt.Errorf("%w: provider %s: %v", model.ErrConfiguration, p.ID, err)
		emit(model.ErrorEvent(err))
		return err
	}
	return l.next.Stream(ctx, p, history, emit)
}
