package main

import (
	"os"

	"aria-chat/backend/internal/app"
)

// @title        Aria chat-session API
// @version      1.0
// @description  Conversation sessions with a debounced write-behind store.
// @BasePath     /
func main() {
	os.Exit(app.Run())
}
