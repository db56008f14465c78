// Copyright 2025 The swotrace Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/controller"
	"github.com/swotrace/swotrace/stream"
)

// decodeStreams 解析 `channel;prefix[;echo]` 格式的通道参数 未指定时使用默认通道
func decodeStreams(flags []string) ([]stream.Config, error) {
	if len(flags) == 0 {
		return controller.DefaultStreams(), nil
	}

	var errs error
	var configs []stream.Config
	for _, flag := range flags {
		cfg, err := decodeStream(flag)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		configs = append(configs, cfg)
	}
	if errs != nil {
		return nil, errs
	}
	return configs, nil
}

func decodeStream(s string) (stream.Config, error) {
	parts := strings.Split(s, ";")
	if len(parts) > 3 {
		return stream.Config{}, errors.Errorf("invalid stream %q: want 'channel;prefix[;echo]'", s)
	}

	keys := []string{"channel", "prefix", "echo"}
	opts := common.NewOptions()
	for i, part := range parts {
		opts.Merge(keys[i], part)
	}

	var cfg stream.Config
	var err error
	if cfg.Channel, err = opts.GetInt("channel"); err != nil {
		return cfg, errors.Wrapf(err, "invalid stream %q channel", s)
	}
	if cfg.Channel < 0 || cfg.Channel >= common.MaxChannels {
		return cfg, errors.Errorf("invalid stream %q: channel out of range [0, %d]", s, common.MaxChannels-1)
	}
	if cfg.Prefix, err = opts.GetString("prefix"); err != nil {
		return cfg, errors.Wrapf(err, "invalid stream %q prefix", s)
	}
	if cfg.Echo, err = opts.GetBool("echo"); err != nil {
		return cfg, errors.Wrapf(err, "invalid stream %q echo", s)
	}
	return cfg, nil
}
