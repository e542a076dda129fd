package constants

import "time"

const AdaptiveUpdateInterval = time.Minute
const DefaultReconnectInterval = 2 * time.Second

// device loop timings
const DevicePollInterval = 30 * time.Millisecond
const CommandSpacing = 100 * time.Millisecond
const ReadTimeout = 50 * time.Millisecond

// software acks arriving within this window of a local write are echoes
const PendingEchoWindow = 300 * time.Millisecond

// status sync gives up after this many poll rounds
const StatusPollRounds = 10

const LogLevelEnvVar = "LITRA_LOG"
