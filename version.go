package sdk

// Version is the published SDK version.
// 0.3.0: Add RunsClient.Drive and ToolRegistry.Dispatch for the full tool round trip.
// 0.2.0: Breaking - Cancel and SubmitToolOutputs take the last observed *Run so
// state preconditions are checked before any request is sent.
const Version = "0.3.0"
