package redisx

import "fmt"

const ns = "stagepass:v1"

func KeyShowSummary(showID int64) string {
	return fmt.Sprintf("%s:show:%d:summary", ns, showID)
}

func KeyShowList() string {
	return ns + ":shows:list"
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelShowsChanged() string {
	return ns + ":shows:changed"
}
