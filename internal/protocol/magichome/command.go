package magichome

// Command 逻辑指令，只能是本包定义的几种变体
type Command interface {
	command()
	Name() string
}

// PowerOn 开灯
type PowerOn struct{}

// PowerOff 关灯
type PowerOff struct{}

// SetColor 切换为静态颜色
type SetColor struct {
	Color Color
}

// SetEffect 切换为内置效果，Speed 取值 0..100
type SetEffect struct {
	Effect Effect
	Speed  uint8
}

// QueryStatus 查询设备状态，设备会回复固定长度的状态帧
type QueryStatus struct{}

func (PowerOn) command()     {}
func (PowerOff) command()    {}
func (SetColor) command()    {}
func (SetEffect) command()   {}
func (QueryStatus) command() {}

func (PowerOn) Name() string     { return "power_on" }
func (PowerOff) Name() string    { return "power_off" }
func (SetColor) Name() string    { return "set_color" }
func (SetEffect) Name() string   { return "set_effect" }
func (QueryStatus) Name() string { return "query_status" }

// ExpectsReply 指令是否需要读取设备回复
func ExpectsReply(cmd Command) bool {
	_, ok := cmd.(QueryStatus)
	return ok
}
