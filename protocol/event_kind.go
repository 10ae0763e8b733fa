package protocol

import "strings"

// EventKind is the Event-Name of an event. Only names the switch defines are
// recognised, anything else parses to EventNone.
type EventKind string

// EventNone marks an event whose Event-Name is missing or unrecognised.
const EventNone EventKind = ""

const (
	EventCustom                 EventKind = "CUSTOM"
	EventClone                  EventKind = "CLONE"
	EventChannelCreate          EventKind = "CHANNEL_CREATE"
	EventChannelDestroy         EventKind = "CHANNEL_DESTROY"
	EventChannelState           EventKind = "CHANNEL_STATE"
	EventChannelCallstate       EventKind = "CHANNEL_CALLSTATE"
	EventChannelAnswer          EventKind = "CHANNEL_ANSWER"
	EventChannelHangup          EventKind = "CHANNEL_HANGUP"
	EventChannelHangupComplete  EventKind = "CHANNEL_HANGUP_COMPLETE"
	EventChannelExecute         EventKind = "CHANNEL_EXECUTE"
	EventChannelExecuteComplete EventKind = "CHANNEL_EXECUTE_COMPLETE"
	EventChannelHold            EventKind = "CHANNEL_HOLD"
	EventChannelUnhold          EventKind = "CHANNEL_UNHOLD"
	EventChannelBridge          EventKind = "CHANNEL_BRIDGE"
	EventChannelUnbridge        EventKind = "CHANNEL_UNBRIDGE"
	EventChannelProgress        EventKind = "CHANNEL_PROGRESS"
	EventChannelProgressMedia   EventKind = "CHANNEL_PROGRESS_MEDIA"
	EventChannelOutgoing        EventKind = "CHANNEL_OUTGOING"
	EventChannelPark            EventKind = "CHANNEL_PARK"
	EventChannelUnpark          EventKind = "CHANNEL_UNPARK"
	EventChannelApplication     EventKind = "CHANNEL_APPLICATION"
	EventChannelOriginate       EventKind = "CHANNEL_ORIGINATE"
	EventChannelUUID            EventKind = "CHANNEL_UUID"
	EventAPI                    EventKind = "API"
	EventLog                    EventKind = "LOG"
	EventInboundChan            EventKind = "INBOUND_CHAN"
	EventOutboundChan           EventKind = "OUTBOUND_CHAN"
	EventStartup                EventKind = "STARTUP"
	EventShutdown               EventKind = "SHUTDOWN"
	EventPublish                EventKind = "PUBLISH"
	EventUnpublish              EventKind = "UNPUBLISH"
	EventTalk                   EventKind = "TALK"
	EventNotalk                 EventKind = "NOTALK"
	EventSessionCrash           EventKind = "SESSION_CRASH"
	EventModuleLoad             EventKind = "MODULE_LOAD"
	EventModuleUnload           EventKind = "MODULE_UNLOAD"
	EventDTMF                   EventKind = "DTMF"
	EventMessage                EventKind = "MESSAGE"
	EventPresenceIn             EventKind = "PRESENCE_IN"
	EventNotifyIn               EventKind = "NOTIFY_IN"
	EventPresenceOut            EventKind = "PRESENCE_OUT"
	EventPresenceProbe          EventKind = "PRESENCE_PROBE"
	EventMessageWaiting         EventKind = "MESSAGE_WAITING"
	EventMessageQuery           EventKind = "MESSAGE_QUERY"
	EventRoster                 EventKind = "ROSTER"
	EventCodec                  EventKind = "CODEC"
	EventBackgroundJob          EventKind = "BACKGROUND_JOB"
	EventDetectedSpeech         EventKind = "DETECTED_SPEECH"
	EventDetectedTone           EventKind = "DETECTED_TONE"
	EventPrivateCommand         EventKind = "PRIVATE_COMMAND"
	EventHeartbeat              EventKind = "HEARTBEAT"
	EventTrap                   EventKind = "TRAP"
	EventAddSchedule            EventKind = "ADD_SCHEDULE"
	EventDelSchedule            EventKind = "DEL_SCHEDULE"
	EventExeSchedule            EventKind = "EXE_SCHEDULE"
	EventReSchedule             EventKind = "RE_SCHEDULE"
	EventReloadXML              EventKind = "RELOADXML"
	EventNotify                 EventKind = "NOTIFY"
	EventPhoneFeature           EventKind = "PHONE_FEATURE"
	EventPhoneFeatureSubscribe  EventKind = "PHONE_FEATURE_SUBSCRIBE"
	EventSendMessage            EventKind = "SEND_MESSAGE"
	EventRecvMessage            EventKind = "RECV_MESSAGE"
	EventRequestParams          EventKind = "REQUEST_PARAMS"
	EventChannelData            EventKind = "CHANNEL_DATA"
	EventGeneral                EventKind = "GENERAL"
	EventCommand                EventKind = "COMMAND"
	EventSessionHeartbeat       EventKind = "SESSION_HEARTBEAT"
	EventClientDisconnected     EventKind = "CLIENT_DISCONNECTED"
	EventServerDisconnected     EventKind = "SERVER_DISCONNECTED"
	EventSendInfo               EventKind = "SEND_INFO"
	EventRecvInfo               EventKind = "RECV_INFO"
	EventRecvRTCPMessage        EventKind = "RECV_RTCP_MESSAGE"
	EventSendRTCPMessage        EventKind = "SEND_RTCP_MESSAGE"
	EventCallSecure             EventKind = "CALL_SECURE"
	EventNAT                    EventKind = "NAT"
	EventRecordStart            EventKind = "RECORD_START"
	EventRecordStop             EventKind = "RECORD_STOP"
	EventPlaybackStart          EventKind = "PLAYBACK_START"
	EventPlaybackStop           EventKind = "PLAYBACK_STOP"
	EventCallUpdate             EventKind = "CALL_UPDATE"
	EventFailure                EventKind = "FAILURE"
	EventSocketData             EventKind = "SOCKET_DATA"
	EventMediaBugStart          EventKind = "MEDIA_BUG_START"
	EventMediaBugStop           EventKind = "MEDIA_BUG_STOP"
	EventConferenceDataQuery    EventKind = "CONFERENCE_DATA_QUERY"
	EventConferenceData         EventKind = "CONFERENCE_DATA"
	EventCallSetupReq           EventKind = "CALL_SETUP_REQ"
	EventCallSetupResult        EventKind = "CALL_SETUP_RESULT"
	EventCallDetail             EventKind = "CALL_DETAIL"
	EventDeviceState            EventKind = "DEVICE_STATE"
	EventText                   EventKind = "TEXT"
	EventShutdownRequested      EventKind = "SHUTDOWN_REQUESTED"
	EventAll                    EventKind = "ALL"
	EventStartRecording         EventKind = "START_RECORDING"
)

var eventKinds = []EventKind{
	EventCustom,
	EventClone,
	EventChannelCreate,
	EventChannelDestroy,
	EventChannelState,
	EventChannelCallstate,
	EventChannelAnswer,
	EventChannelHangup,
	EventChannelHangupComplete,
	EventChannelExecute,
	EventChannelExecuteComplete,
	EventChannelHold,
	EventChannelUnhold,
	EventChannelBridge,
	EventChannelUnbridge,
	EventChannelProgress,
	EventChannelProgressMedia,
	EventChannelOutgoing,
	EventChannelPark,
	EventChannelUnpark,
	EventChannelApplication,
	EventChannelOriginate,
	EventChannelUUID,
	EventAPI,
	EventLog,
	EventInboundChan,
	EventOutboundChan,
	EventStartup,
	EventShutdown,
	EventPublish,
	EventUnpublish,
	EventTalk,
	EventNotalk,
	EventSessionCrash,
	EventModuleLoad,
	EventModuleUnload,
	EventDTMF,
	EventMessage,
	EventPresenceIn,
	EventNotifyIn,
	EventPresenceOut,
	EventPresenceProbe,
	EventMessageWaiting,
	EventMessageQuery,
	EventRoster,
	EventCodec,
	EventBackgroundJob,
	EventDetectedSpeech,
	EventDetectedTone,
	EventPrivateCommand,
	EventHeartbeat,
	EventTrap,
	EventAddSchedule,
	EventDelSchedule,
	EventExeSchedule,
	EventReSchedule,
	EventReloadXML,
	EventNotify,
	EventPhoneFeature,
	EventPhoneFeatureSubscribe,
	EventSendMessage,
	EventRecvMessage,
	EventRequestParams,
	EventChannelData,
	EventGeneral,
	EventCommand,
	EventSessionHeartbeat,
	EventClientDisconnected,
	EventServerDisconnected,
	EventSendInfo,
	EventRecvInfo,
	EventRecvRTCPMessage,
	EventSendRTCPMessage,
	EventCallSecure,
	EventNAT,
	EventRecordStart,
	EventRecordStop,
	EventPlaybackStart,
	EventPlaybackStop,
	EventCallUpdate,
	EventFailure,
	EventSocketData,
	EventMediaBugStart,
	EventMediaBugStop,
	EventConferenceDataQuery,
	EventConferenceData,
	EventCallSetupReq,
	EventCallSetupResult,
	EventCallDetail,
	EventDeviceState,
	EventText,
	EventShutdownRequested,
	EventAll,
	EventStartRecording,
}

var eventKindsByName = func() map[string]EventKind {
	m := make(map[string]EventKind, len(eventKinds))
	for _, k := range eventKinds {
		m[string(k)] = k
	}

	return m
}()

// ParseEventKind looks up an event name, ignoring case.
func ParseEventKind(name string) (EventKind, bool) {
	k, ok := eventKindsByName[strings.ToUpper(strings.TrimSpace(name))]
	return k, ok
}

// EventKinds returns every recognised kind in a stable order.
func EventKinds() []EventKind {
	out := make([]EventKind, len(eventKinds))
	copy(out, eventKinds)

	return out
}

func (k EventKind) String() string {
	return string(k)
}
