package pipeline

import (
	"encoding/json"
	"net/http"
)

// Outcome is the result of classifying one call. Exactly one of Data/Err is
// meaningful. Notice is empty when no notice should be shown.
type Outcome struct {
	Data    json.RawMessage
	Err     *RequestError
	Notice  string
	Expired bool
}

// OK reports a successful call.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Kind returns the failure sentinel, or nil on success.
func (o Outcome) Kind() error {
	if o.Err == nil {
		return nil
	}
	return o.Err.Kind
}

// Stage says how far a failed call got before it failed.
type Stage int

const (
	// StageBuild: the request could not be constructed; nothing was sent.
	StageBuild Stage = iota
	// StageSend: the request was sent but no response was received.
	StageSend
	// StageStatus: a response arrived with a non-2xx HTTP status.
	StageStatus
)

// Failure describes a call that never produced an envelope.
type Failure struct {
	Stage  Stage
	Status int
	Body   []byte
	Err    error
}

// ClassifyEnvelope classifies an application envelope. A nil envelope means
// the server answered without one.
func ClassifyEnvelope(env *Envelope) Outcome {
	if env == nil {
		return failed(&RequestError{Kind: ErrTransport, Message: NoticeNoResponse}, NoticeNoResponse)
	}

	switch env.Code {
	case CodeOK:
		return Outcome{Data: env.Data}
	case CodeUnauthorized:
		return Outcome{
			Err:     &RequestError{Kind: ErrAuth, Code: env.Code, Message: env.Message},
			Expired: true,
		}
	default:
		msg := env.Message
		if msg == "" {
			msg = NoticeRequestFailed
		}
		return failed(&RequestError{Kind: ErrBusiness, Code: env.Code, Message: msg}, msg)
	}
}

// ClassifyBody decodes a 2xx response body and classifies it. A body that is
// not an envelope is a business failure with the generic notice.
func ClassifyBody(body []byte) Outcome {
	env, err := DecodeEnvelope(body)
	if err != nil {
		return failed(&RequestError{Kind: ErrBusiness, Message: NoticeRequestFailed, Err: err}, NoticeRequestFailed)
	}
	return ClassifyEnvelope(env)
}

// ClassifyTransport classifies a call that failed before an envelope could be
// read.
func ClassifyTransport(f Failure) Outcome {
	switch f.Stage {
	case StageBuild:
		msg := NoticeNetworkFault
		if f.Err != nil && f.Err.Error() != "" {
			msg = f.Err.Error()
		}
		return failed(&RequestError{Kind: ErrTransport, Message: msg, Err: f.Err}, msg)
	case StageSend:
		return failed(&RequestError{Kind: ErrTransport, Message: NoticeNetwork, Err: f.Err}, NoticeNetwork)
	}

	switch f.Status {
	case http.StatusNotFound:
		return failed(&RequestError{Kind: ErrServer, Status: f.Status, Message: NoticeNotFound}, NoticeNotFound)
	case http.StatusInternalServerError:
		return failed(&RequestError{Kind: ErrServer, Status: f.Status, Message: NoticeServerError}, NoticeServerError)
	case http.StatusUnauthorized:
		return Outcome{
			Err:     &RequestError{Kind: ErrAuth, Status: f.Status, Message: envelopeMessage(f.Body)},
			Expired: true,
		}
	default:
		msg := envelopeMessage(f.Body)
		if msg == "" {
			msg = NoticeRequestFailed
		}
		return failed(&RequestError{Kind: ErrBusiness, Status: f.Status, Message: msg}, msg)
	}
}

func failed(err *RequestError, notice string) Outcome {
	return Outcome{Err: err, Notice: notice}
}
