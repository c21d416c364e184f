// Package store 提供按用户名保存最高分的存储，并支持实时推送全部分数快照。
package store

import (
	"context"
	"errors"

	"github.com/jacl-coder/RPS-Server/internal/models"
)

// ErrEmptyUsername 用户名为空
var ErrEmptyUsername = errors.New("用户名不能为空")

// SnapshotHandler 收到新快照时的回调
type SnapshotHandler func(models.ScoreSnapshot)

// Subscription 订阅句柄
type Subscription interface {
	// Unsubscribe 取消订阅，可重复调用
	Unsubscribe()
}

// ScoreStore 最高分存储，后写覆盖先写
type ScoreStore interface {
	// ReadBest 读取用户最高分，不存在时返回0
	ReadBest(ctx context.Context, username string) (int, error)
	// WriteBest 写入用户最高分
	WriteBest(ctx context.Context, username string, score int) error
	// SubscribeAll 订阅所有用户的分数，订阅后立即推送一次当前快照，之后每次变化推送一次
	SubscribeAll(ctx context.Context, handler SnapshotHandler) (Subscription, error)
}

// SubscriptionFunc 把函数适配为 Subscription
type SubscriptionFunc func()

// Unsubscribe 调用函数本身
func (f SubscriptionFunc) Unsubscribe() { f() }
