package game

import (
	"fmt"
	"sync"

	"github.com/wfunc/klyra-server/internal/errors"
	"go.uber.org/zap"
)

// LobbyStatus 大厅状态枚举
type LobbyStatus string

const (
	StatusWaiting  LobbyStatus = "waiting"  // 等待玩家加入
	StatusStarting LobbyStatus = "starting" // 满员倒计时中
	StatusActive   LobbyStatus = "active"   // 游戏进行中
	StatusFinished LobbyStatus = "finished" // 已结束，等待回收
)

// 状态机事件
const (
	TriggerLobbyFull      = "lobby_full"       // 等待中满员
	TriggerStartGame      = "start_game"       // 倒计时结束
	TriggerLastPlayerLeft = "last_player_left" // 最后一名玩家离开
)

// StateTransition 状态转换定义
type StateTransition struct {
	From   LobbyStatus
	Event  string
	To     LobbyStatus
	Action func(sm *StateMachine) error
}

// StateMachine 大厅状态机
// 所有合法转换集中在转换表中，finished 为终态
type StateMachine struct {
	mu           sync.RWMutex
	currentState LobbyStatus
	lobbyID      string
	transitions  map[string][]StateTransition
	logger       *zap.Logger

	// 回调函数
	onStateChange func(from, to LobbyStatus)
}

// NewStateMachine 创建大厅状态机
func NewStateMachine(lobbyID string, logger *zap.Logger) *StateMachine {
	sm := &StateMachine{
		currentState: StatusWaiting,
		lobbyID:      lobbyID,
		transitions:  make(map[string][]StateTransition),
		logger:       logger,
	}

	// 初始化状态转换规则
	sm.initTransitions()

	return sm
}

// initTransitions 初始化状态转换规则
func (sm *StateMachine) initTransitions() {
	// 等待中 -> 倒计时（满员）
	sm.addTransition(StateTransition{
		From:  StatusWaiting,
		Event: TriggerLobbyFull,
		To:    StatusStarting,
		Action: func(sm *StateMachine) error {
			sm.logger.Info("大厅满员，进入倒计时", zap.String("lobby_id", sm.lobbyID))
			return nil
		},
	})

	// 倒计时 -> 进行中（倒计时结束）
	sm.addTransition(StateTransition{
		From:  StatusStarting,
		Event: TriggerStartGame,
		To:    StatusActive,
		Action: func(sm *StateMachine) error {
			sm.logger.Info("游戏开始", zap.String("lobby_id", sm.lobbyID))
			return nil
		},
	})

	// 任何非终态 -> 已结束（最后一名玩家离开）
	for _, state := range []LobbyStatus{StatusWaiting, StatusStarting, StatusActive} {
		sm.addTransition(StateTransition{
			From:  state,
			Event: TriggerLastPlayerLeft,
			To:    StatusFinished,
			Action: func(sm *StateMachine) error {
				sm.logger.Info("大厅已清空", zap.String("lobby_id", sm.lobbyID))
				return nil
			},
		})
	}
}

// addTransition 添加状态转换
func (sm *StateMachine) addTransition(transition StateTransition) {
	key := sm.transitionKey(transition.From, transition.Event)
	sm.transitions[key] = append(sm.transitions[key], transition)
}

// transitionKey 生成转换键
func (sm *StateMachine) transitionKey(state LobbyStatus, event string) string {
	return fmt.Sprintf("%s:%s", state, event)
}

// Trigger 触发事件
func (sm *StateMachine) Trigger(event string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	key := sm.transitionKey(sm.currentState, event)
	transitions, exists := sm.transitions[key]
	if !exists || len(transitions) == 0 {
		return errors.Newf(errors.ErrInvalidTransition,
			"无效的状态转换: 状态=%s, 事件=%s", sm.currentState, event)
	}

	// 执行第一个匹配的转换
	transition := transitions[0]
	oldState := sm.currentState

	// 执行转换动作
	if transition.Action != nil {
		if err := transition.Action(sm); err != nil {
			// 转换失败，保持原状态
			return errors.Wrapf(err, errors.ErrInvalidTransition,
				"状态转换失败: 状态=%s, 事件=%s", sm.currentState, event)
		}
	}

	// 更新状态
	sm.currentState = transition.To

	// 触发状态变更回调
	if sm.onStateChange != nil {
		sm.onStateChange(oldState, sm.currentState)
	}

	sm.logger.Debug("状态转换",
		zap.String("lobby_id", sm.lobbyID),
		zap.String("from", string(oldState)),
		zap.String("to", string(sm.currentState)),
		zap.String("event", event))

	return nil
}

// GetState 获取当前状态
func (sm *StateMachine) GetState() LobbyStatus {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// CanTransition 检查是否可以转换
func (sm *StateMachine) CanTransition(event string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	key := sm.transitionKey(sm.currentState, event)
	transitions, exists := sm.transitions[key]
	return exists && len(transitions) > 0
}

// OnStateChange 设置状态变更回调
func (sm *StateMachine) OnStateChange(fn func(from, to LobbyStatus)) {
	sm.onStateChange = fn
}
