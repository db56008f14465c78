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

package operator

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/swotrace/swotrace/internal/rescue"
	"github.com/swotrace/swotrace/logger"
)

const defaultDebounce = 500 * time.Millisecond

// ImageWatcher 监听固件镜像的变化 稳定后产生 flash 事件
//
// 监听的是镜像所在的目录 构建工具通常以 rename 的方式替换文件 直接监听文件会丢失后续的变化
type ImageWatcher struct {
	path     string
	debounce time.Duration
	emit     func(Event) bool
	log      logger.Logger

	fsw       *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewImageWatcher(path string, debounce time.Duration, emit func(Event) bool) (*ImageWatcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "watch %s", filepath.Dir(abs))
	}

	w := &ImageWatcher{
		path:     abs,
		debounce: debounce,
		emit:     emit,
		log:      logger.Named("operator"),
		fsw:      fsw,
		done:     make(chan struct{}),
	}

	w.wg.Add(1)
	rescue.Go("operator.watcher", func() {
		defer w.wg.Done()
		w.loop()
	})
	return w, nil
}

func (w *ImageWatcher) Path() string {
	return w.path
}

func (w *ImageWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *ImageWatcher) loop() {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.fire)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnf("watch %s failed: %v", w.path, err)
		}
	}
}

func (w *ImageWatcher) fire() {
	select {
	case <-w.done:
		return
	default:
	}

	ev := Event{Kind: KindFlash, Source: SourceWatch}
	if !w.emit(ev) {
		w.log.Warnf("event %s dropped: queue full", ev)
	}
}
