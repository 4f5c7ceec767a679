// Package oak provides chat-bot machinery: a command-tree
// parser/dispatcher and a declarative trigger/condition/action rule
// engine.
//
// The parsing primitives are in package 'parse', the dispatcher in
// 'command', the rule engine in 'interact', and the assembled bot in
// 'bot'.  The command-line tool is in `cmd/oak`.
package oak
