// Package workflow drives queue items through the two processing phases.
//
// The Manager owns two lanes. The sync lane claims pending items, runs the
// mandatory phase, and marks them servable or rejected; rejected items have
// their partial artifacts removed. The async lane claims servable items and
// runs the optional phase under the variant's scaled time budget, marking
// them completed or degraded. A degraded item keeps its sync artifacts.
//
// Each lane runs a configurable number of workers under an errgroup. Workers
// heartbeat the item they hold and a reclaimer returns items whose heartbeat
// expired to the status their lane claims from. ProcessNow runs both phases
// inline for one item without starting the lanes.
package workflow
