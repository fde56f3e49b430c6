// Package dispatch implements assignment planning and the dispatch commit:
// staging order-to-vehicle assignments in an operator session, then
// atomically deploying one vehicle's batch.
package dispatch

// WouldExceedCapacity reports whether adding candidateWeight to the weight
// already carried (persisted plus staged) would breach the vehicle's
// capacity. Pure predicate, total over non-negative inputs.
func WouldExceedCapacity(capacityWeight, currentlyAssignedWeight, candidateWeight float64) bool {
	return currentlyAssignedWeight+candidateWeight > capacityWeight
}
