// Package logx is lifepath's structured logging layer on top of zerolog.
//
// Records go to the console (human readable), an optional JSON file and,
// for warnings and above, an optional Telegram log chat. The sinks can be
// swapped at runtime with Service.Apply; loggers handed out earlier follow
// the swap.
package logx
