// Package tasks polls platform tasks to completion, answering any blocking
// virtual machine questions along the way.
package tasks

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/vctools/vctools/internal/vsphere"
)

// StatusSource yields the current state of a running task.
type StatusSource interface {
	Status(ctx context.Context) (types.TaskInfo, error)
}

// QuestionSource is the optional machine whose pending questions get
// answered while its task runs.
type QuestionSource interface {
	PendingQuestion(ctx context.Context) (*types.VirtualMachineQuestionInfo, error)
	AnswerQuestion(ctx context.Context, id, choice string) error
}

// Monitor drives a task to completion, printing progress on one line.
type Monitor struct {
	// Interval is the poll delay between status checks.
	Interval time.Duration

	out io.Writer
	ask func(label string) (string, error)
}

// NewMonitor returns a Monitor writing progress to out. ask is used when a
// question needs an interactive answer.
func NewMonitor(out io.Writer, ask func(label string) (string, error)) *Monitor {
	return &Monitor{
		Interval: time.Second,
		out:      out,
		ask:      ask,
	}
}

// Wait polls until the task leaves the queue and finishes. A non-nil vm has
// its blocking questions answered while the task runs; each question is
// answered only once. A failed task returns an error carrying the fault
// messages.
func (m *Monitor) Wait(ctx context.Context, task StatusSource, vm QuestionSource) error {
	answered := make(map[string]bool)
	for {
		info, err := task.Status(ctx)
		if err != nil {
			return err
		}

		switch info.State {
		case types.TaskInfoStateQueued, types.TaskInfoStateRunning:
			if vm != nil {
				if err := m.answerPending(ctx, vm, answered); err != nil {
					return err
				}
			}
			fmt.Fprintf(m.out, "\r[%s] | %d", info.State, info.Progress)
			select {
			case <-ctx.Done():
				fmt.Fprintln(m.out)
				return ctx.Err()
			case <-time.After(m.Interval):
			}
		case types.TaskInfoStateError:
			messages := strings.Join(faultMessages(info), " ")
			fmt.Fprintf(m.out, "\r[%s] | %s\n", info.State, messages)
			return fmt.Errorf("task failed: %s", messages)
		case types.TaskInfoStateSuccess:
			fmt.Fprintf(m.out, "\r[%s] | task successfully completed.\n", info.State)
			return nil
		default:
			return fmt.Errorf("unknown task state %q", info.State)
		}
	}
}

func (m *Monitor) answerPending(ctx context.Context, vm QuestionSource, answered map[string]bool) error {
	question, err := vm.PendingQuestion(ctx)
	if err != nil {
		return err
	}
	if question == nil || answered[question.Id] {
		return nil
	}

	choice, err := m.chooseAnswer(question)
	if err != nil {
		return err
	}
	if err := vm.AnswerQuestion(ctx, question.Id, choice); err != nil {
		return fmt.Errorf("failed to answer question %s: %w", question.Id, err)
	}
	answered[question.Id] = true
	return nil
}

// chooseAnswer picks the answer key for a question. The CD-ROM door prompt
// that follows an ISO eject is always answered Yes; anything else goes to
// the operator.
func (m *Monitor) chooseAnswer(question *types.VirtualMachineQuestionInfo) (string, error) {
	choices := question.Choice.ChoiceInfo

	if strings.Contains(question.Text, "CD-ROM door") {
		for _, choice := range choices {
			desc := choice.GetElementDescription()
			if desc.Label == "Yes" {
				return desc.Key, nil
			}
		}
	}

	fmt.Fprintf(m.out, "\n%s\n", strings.TrimSpace(question.Text))
	for _, choice := range choices {
		desc := choice.GetElementDescription()
		fmt.Fprintf(m.out, "\t%s: %s\n", desc.Key, desc.Label)
	}
	fmt.Fprintln(m.out, "Warning: The VM may be in a suspended state until this question is answered.")

	for {
		answer, err := m.ask("Please select number: ")
		if err != nil {
			return "", err
		}
		for _, choice := range choices {
			if choice.GetElementDescription().Key == answer {
				return answer, nil
			}
		}
		fmt.Fprintln(m.out, "Invalid option.")
	}
}

func faultMessages(info types.TaskInfo) []string {
	if info.Error == nil {
		return nil
	}
	messages := []string{info.Error.LocalizedMessage}
	if info.Error.Fault != nil {
		for _, fm := range info.Error.Fault.GetMethodFault().FaultMessage {
			messages = append(messages, fm.Message)
		}
	}
	return messages
}

// taskStatus adapts a platform task reference to StatusSource.
type taskStatus struct {
	client *vsphere.Client
	ref    types.ManagedObjectReference
}

// NewStatus wraps a task for monitoring.
func NewStatus(client *vsphere.Client, task *object.Task) StatusSource {
	return taskStatus{client: client, ref: task.Reference()}
}

func (t taskStatus) Status(ctx context.Context) (types.TaskInfo, error) {
	var task mo.Task
	if err := t.client.Properties(ctx, t.ref, []string{"info"}, &task); err != nil {
		return types.TaskInfo{}, err
	}
	return task.Info, nil
}

// vmQuestions adapts a virtual machine to QuestionSource.
type vmQuestions struct {
	client *vsphere.Client
	vm     *object.VirtualMachine
}

// NewVMQuestions wraps a virtual machine for question handling.
func NewVMQuestions(client *vsphere.Client, vm *object.VirtualMachine) QuestionSource {
	return vmQuestions{client: client, vm: vm}
}

func (q vmQuestions) PendingQuestion(ctx context.Context) (*types.VirtualMachineQuestionInfo, error) {
	var vm mo.VirtualMachine
	if err := q.client.Properties(ctx, q.vm.Reference(), []string{"runtime.question"}, &vm); err != nil {
		return nil, err
	}
	return vm.Runtime.Question, nil
}

func (q vmQuestions) AnswerQuestion(ctx context.Context, id, choice string) error {
	return q.vm.Answer(ctx, id, choice)
}
