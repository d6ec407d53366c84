package model

import "github.com/lucsky/cuid"

// EstimatorState はモデルの学習状態を表す
type EstimatorState int

const (
	// NotFitted はモデルが未学習の状態
	NotFitted EstimatorState = iota
	// Fitted はモデルが学習済みの状態
	Fitted
)

// BaseEstimator は全てのモデルの基底となる構造体
//
// Every successful Fit gets a fresh collision-resistant id so that log lines of
// one fitted instance can be correlated.
type BaseEstimator struct {
	state EstimatorState
	id    string
}

// IsFitted はモデルが学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted はモデルを学習済み状態に設定し、新しいIDを割り当てる
func (e *BaseEstimator) SetFitted() {
	e.state = Fitted
	e.id = cuid.New()
}

// ID returns the id assigned by the last SetFitted, or "" before fitting.
func (e *BaseEstimator) ID() string {
	return e.id
}

// Reset はモデルを初期状態にリセットする
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
	e.id = ""
}
