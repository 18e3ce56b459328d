// Package streaming provides the typed event stream emitted by the
// provisioning service and a multi-subscriber broker to observe it.
package streaming

// EventType identifies the kind of event carried by an Event.
type EventType string

const (
	EventMetricsAvailable      EventType = "METRICS_AVAILABLE"
	EventHypervisorAvailable   EventType = "HYPERVISOR_AVAILABLE"
	EventHypervisorUnavailable EventType = "HYPERVISOR_UNAVAILABLE"
	EventVmSubmission          EventType = "VM_SUBMISSION"
	EventVmSubmissionInvalid   EventType = "VM_SUBMISSION_INVALID"
	EventVmScheduled           EventType = "VM_SCHEDULED"
	EventVmStopped             EventType = "VM_STOPPED"
)

// Event is one entry in the service's event stream. Time is the virtual
// timestamp of the mutation that caused the event; events are published in
// mutation order.
type Event struct {
	Type EventType   `json:"type"`
	Time int64       `json:"time"`
	Body interface{} `json:"body,omitempty"`
}

// Metrics is the body of a METRICS_AVAILABLE event: a snapshot of the
// service counters taken immediately after the causing mutation.
type Metrics struct {
	Service            string `json:"service"`
	HostCount          int    `json:"host_count"`
	AvailableHostCount int    `json:"available_host_count"`
	Submitted          int64  `json:"submitted"`
	Running            int64  `json:"running"`
	Finished           int64  `json:"finished"`
	Queued             int64  `json:"queued"`
	Unscheduled        int64  `json:"unscheduled"`
}

// Hypervisor is the body of HYPERVISOR_AVAILABLE and HYPERVISOR_UNAVAILABLE
// events.
type Hypervisor struct {
	HostUID string `json:"host_uid"`
}

// Submission is the body of a VM_SUBMISSION trace event.
type Submission struct {
	Name       string `json:"name"`
	Image      string `json:"image"`
	CPUCount   int    `json:"cpu_count"`
	MemorySize int64  `json:"memory_size"`
}

// Vm is the body of VM_SUBMISSION_INVALID, VM_SCHEDULED and VM_STOPPED
// events.
type Vm struct {
	Name string `json:"name"`
}
