package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("StepCountTracer", func() {
	var t *StepCountTracer

	BeforeEach(func() {
		t = NewStepCountTracer(nil)
	})

	stepTask := func(id, what string) {
		t.StepTask(Task{
			ID:    id,
			Steps: []TaskStep{{What: what}},
		})
	}

	It("should count steps and the tasks that reported them", func() {
		t.StartTask(Task{ID: "1"})
		t.StartTask(Task{ID: "2"})

		stepTask("1", "write_beat")
		stepTask("1", "write_beat")
		stepTask("2", "write_beat")
		stepTask("1", "read_beat")

		t.EndTask(Task{ID: "1"})
		t.EndTask(Task{ID: "2"})

		Expect(t.GetStepNames()).To(ConsistOf("write_beat", "read_beat"))
		Expect(t.GetStepCount("write_beat")).To(Equal(uint64(3)))
		Expect(t.GetStepCount("read_beat")).To(Equal(uint64(1)))
		Expect(t.GetTaskCount("write_beat")).To(Equal(uint64(2)))
		Expect(t.GetTaskCount("read_beat")).To(Equal(uint64(1)))
	})

	It("should count steps of untracked tasks without counting the task", func() {
		stepTask("unknown", "write_beat")

		Expect(t.GetStepCount("write_beat")).To(Equal(uint64(1)))
		Expect(t.GetTaskCount("write_beat")).To(Equal(uint64(0)))
	})
})
